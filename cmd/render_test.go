package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/habedi/petcli/client"
	"github.com/habedi/petcli/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatBytes(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{999, "999 B"},
		{1024, "1.0KiB"},
		{1024*1024 + 512*1024, "1.5MiB"},
		{3 * 1024 * 1024 * 1024, "3.0GiB"},
	}
	for _, c := range cases {
		got := formatBytes(c.in)
		if got != c.want {
			t.Fatalf("formatBytes(%d)=%q, want %q", c.in, got, c.want)
		}
	}
}

func TestAnimalRow(t *testing.T) {
	breed := "Beagle"
	age := 3
	row := animalRow(client.Animal{ID: "1", Name: "Rex\nthe dog", Species: client.Dog, Breed: &breed, Age: &age})
	assert.Equal(t, []string{"1", "Rex the dog", "🐕 dog", "Beagle", "3"}, row)

	row = animalRow(client.Animal{ID: "2", Name: "Mia", Species: "dragon"})
	assert.Equal(t, []string{"2", "Mia", "🐾 dragon", "-", "-"}, row)
}

func TestAnimalsFromRecords_SkipsBrokenRows(t *testing.T) {
	rec, err := recordFromAnimal(&client.Animal{ID: "7", Name: "Rex", Species: client.Dog})
	require.NoError(t, err)
	assert.Equal(t, "7", rec.ID)
	assert.Equal(t, "dog", rec.Species)

	animals := animalsFromRecords([]db.AnimalRecord{rec, {ID: "8", Data: "{not json"}})
	require.Len(t, animals, 1)
	assert.Equal(t, client.ID("7"), animals[0].ID)
}

func TestRenderAnimals(t *testing.T) {
	var buf bytes.Buffer
	renderAnimals(&buf, []client.Animal{{ID: "1", Name: "Rex", Species: client.Dog}})
	out := buf.String()
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "Rex")
	assert.True(t, strings.HasPrefix(out, "+"), out)
}

func TestDefaultPhotoName(t *testing.T) {
	photo := "http://localhost:8000/media/animals/rex.png?v=2"
	assert.Equal(t, "animal-1.png", defaultPhotoName(&client.Animal{ID: "1", Photo: &photo}))
	photo = "/media/animals/rex"
	assert.Equal(t, "animal-1.jpg", defaultPhotoName(&client.Animal{ID: "1", Photo: &photo}))
}
