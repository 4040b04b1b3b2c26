package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/habedi/petcli/client"
	"github.com/habedi/petcli/db"
	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog/log"
)

// newTable returns a left-aligned table without row separators.
func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	table.SetRowLine(false)
	return table
}

func renderAnimals(w io.Writer, animals []client.Animal) {
	table := newTable(w, "ID", "Name", "Species", "Breed", "Age")
	table.SetColMinWidth(1, 20)
	for _, a := range animals {
		table.Append(animalRow(a))
	}
	table.Render()
}

func animalRow(a client.Animal) []string {
	return []string{
		a.ID.String(),
		strings.ReplaceAll(a.Name, "\n", " "),
		a.Species.Emoji() + " " + string(a.Species),
		optionalString(a.Breed),
		optionalInt(a.Age),
	}
}

func renderAnimalDetails(w io.Writer, a *client.Animal) {
	table := newTable(w, "Field", "Value")
	table.AppendBulk([][]string{
		{"ID", a.ID.String()},
		{"Name", a.Name},
		{"Species", a.Species.Emoji() + " " + string(a.Species)},
		{"Breed", optionalString(a.Breed)},
		{"Age", optionalInt(a.Age)},
		{"Photo", optionalString(a.Photo)},
		{"Thought of the day", optionalString(a.ThoughtOfTheDay)},
	})
	if a.ThoughtGeneratedAt != nil {
		table.Append([]string{"Thought generated at", a.ThoughtGeneratedAt.Local().Format("2006-01-02 15:04")})
	}
	table.Render()
}

// animalsFromRecords decodes cached records, skipping any that no longer
// parse.
func animalsFromRecords(records []db.AnimalRecord) []client.Animal {
	animals := make([]client.Animal, 0, len(records))
	for _, rec := range records {
		var a client.Animal
		if err := json.Unmarshal([]byte(rec.Data), &a); err != nil {
			log.Warn().Err(err).Str("id", rec.ID).Msg("Skipping unreadable cached animal")
			continue
		}
		animals = append(animals, a)
	}
	return animals
}

func optionalString(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

func optionalInt(n *int) string {
	if n == nil {
		return "-"
	}
	return strconv.Itoa(*n)
}

// formatBytes renders n with binary units.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
