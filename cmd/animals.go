package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/habedi/petcli/client"
	"github.com/habedi/petcli/db"
	"github.com/habedi/petcli/pkg/clierr"
	"github.com/habedi/petcli/pkg/hasher"
	"github.com/habedi/petcli/pkg/pool"
	"github.com/habedi/petcli/pkg/validation"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// animalsCmd groups the commands that manage the user's animals.
func animalsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "animals",
		Aliases: []string{"pets"},
		Short:   "Manage your animals",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd.Context(), cmd.ErrOrStderr()); err != nil {
				return err
			}
			// The cache is readable without a session.
			if cmd.Name() == "search" {
				return nil
			}
			if cmd.Name() == "list" || cmd.Name() == "get" {
				if cached, _ := cmd.Flags().GetBool("cached"); cached {
					return nil
				}
			}
			return a.requireLogin()
		},
	}

	cmd.AddCommand(
		listAnimalsCmd(a),
		getAnimalCmd(a),
		createAnimalCmd(a),
		updateAnimalCmd(a),
		deleteAnimalsCmd(a),
		photoCmd(a),
		syncCmd(a),
		searchCmd(a),
		thoughtsCmd(a),
	)
	return cmd
}

func listAnimalsCmd(a *app) *cobra.Command {
	var page int
	var all, cached bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your animals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var animals []client.Animal
			switch {
			case cached:
				records, err := a.cache.List(ctx)
				if err != nil {
					return clierr.New(clierr.Internal, "Failed to read the local cache.", err)
				}
				animals = animalsFromRecords(records)
			case all:
				var err error
				if animals, err = a.animals.ListAll(ctx); err != nil {
					return err
				}
			default:
				if page < 1 {
					return &validation.FieldError{Field: "page", Message: "must be 1 or greater"}
				}
				p, err := a.animals.List(ctx, page)
				if err != nil {
					return err
				}
				animals = p.Results
				defer func() {
					if p.Next != nil && *p.Next != "" {
						cmd.Printf("Showing page %d (%d animals in total). Use --page %d for more.\n", page, p.Count, page+1)
					}
				}()
			}

			if len(animals) == 0 {
				cmd.Println("No animals found. Use `petcli animals create` to add one.")
				return nil
			}
			renderAnimals(cmd.OutOrStdout(), animals)
			return nil
		},
	}
	cmd.Flags().IntVarP(&page, "page", "p", 1, "Page to show")
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Follow pagination and show every animal")
	cmd.Flags().BoolVar(&cached, "cached", false, "Show the animals from the local cache (see 'animals sync')")
	cmd.MarkFlagsMutuallyExclusive("all", "cached")
	return cmd
}

func getAnimalCmd(a *app) *cobra.Command {
	var cached bool
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one animal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cached {
				animal, err := a.cachedAnimal(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				renderAnimalDetails(cmd.OutOrStdout(), animal)
				return nil
			}
			animal, err := a.animals.Get(cmd.Context(), client.ID(args[0]))
			if err != nil {
				return err
			}
			a.cacheAnimal(cmd.Context(), animal)
			renderAnimalDetails(cmd.OutOrStdout(), animal)
			return nil
		},
	}
	cmd.Flags().BoolVar(&cached, "cached", false, "Show the animal from the local cache (see 'animals sync')")
	return cmd
}

// cachedAnimal reads one animal from the local cache.
func (a *app) cachedAnimal(ctx context.Context, id string) (*client.Animal, error) {
	rec, err := a.cache.GetByID(ctx, id)
	if err != nil {
		return nil, clierr.New(clierr.Internal, "Failed to read the local cache.", err)
	}
	if rec == nil {
		return nil, clierr.New(clierr.NotFound, fmt.Sprintf("Animal %s is not in the local cache. Run `petcli animals sync` to refresh it.", id), nil)
	}
	animals := animalsFromRecords([]db.AnimalRecord{*rec})
	if len(animals) == 0 {
		return nil, clierr.New(clierr.Internal, fmt.Sprintf("Cached animal %s is unreadable. Run `petcli animals sync` to refresh it.", id), nil)
	}
	return &animals[0], nil
}

// animalFlags are the editable fields shared by create and update.
type animalFlags struct {
	name, species, breed, photo string
	age                         int
	limitRate                   int
}

func (f *animalFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.name, "name", "n", "", "Name of the animal")
	cmd.Flags().StringVarP(&f.species, "species", "s", "", "Species ("+strings.Join(client.SpeciesStrings(), ", ")+")")
	cmd.Flags().StringVarP(&f.breed, "breed", "b", "", "Breed")
	cmd.Flags().IntVar(&f.age, "age", 0, "Age in years")
	cmd.Flags().StringVar(&f.photo, "photo", "", "Path to a photo to upload")
	cmd.Flags().IntVar(&f.limitRate, "limit-rate", 0, "Upload speed limit in KiB/s (0 means no limit)")
}

// parseSpecies normalizes the species flag. An empty value is left for the
// service validation to report.
func (f *animalFlags) parseSpecies() (client.Species, error) {
	if strings.TrimSpace(f.species) == "" {
		return "", nil
	}
	sp, err := client.ParseSpecies(f.species)
	if err != nil {
		return "", &validation.FieldError{Field: "species", Message: "must be one of: " + strings.Join(client.SpeciesStrings(), ", ")}
	}
	return sp, nil
}

// openPhoto opens the photo flag, if set. The returned closer is never nil.
func (f *animalFlags) openPhoto() (*client.FormFile, func(), error) {
	if f.photo == "" {
		return nil, func() {}, nil
	}
	file, fh, err := client.OpenFormFile("photo", f.photo)
	if err != nil {
		return nil, nil, &validation.FieldError{Field: "photo", Message: err.Error()}
	}
	return file, func() { _ = fh.Close() }, nil
}

func createAnimalCmd(a *app) *cobra.Command {
	var f animalFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Add an animal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			species, err := f.parseSpecies()
			if err != nil {
				return err
			}
			in := client.AnimalInput{
				Name:    f.name,
				Species: species,
				Breed:   f.breed,
			}
			if cmd.Flags().Changed("age") {
				in.Age = &f.age
			}
			photo, closePhoto, err := f.openPhoto()
			if err != nil {
				return err
			}
			defer closePhoto()
			in.Photo = photo

			var opts []client.RequestOption
			if photo != nil {
				t := newTransfer("Uploading photo", cmd.ErrOrStderr(), f.limitRate)
				defer t.finish()
				opts = append(opts, client.WithUploadProgress(t.wrap))
			}

			animal, err := a.animals.Create(cmd.Context(), in, opts...)
			if err != nil {
				return err
			}
			a.cacheAnimal(cmd.Context(), animal)
			cmd.Printf("Created %s %s (ID %s).\n", animal.Species.Emoji(), animal.Name, animal.ID)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func updateAnimalCmd(a *app) *cobra.Command {
	var f animalFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change an animal's details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var p client.AnimalPatch
			flags := cmd.Flags()
			if flags.Changed("name") {
				p.Name = &f.name
			}
			if flags.Changed("species") {
				sp, err := f.parseSpecies()
				if err != nil {
					return err
				}
				p.Species = &sp
			}
			if flags.Changed("breed") {
				p.Breed = &f.breed
			}
			if flags.Changed("age") {
				p.Age = &f.age
			}
			photo, closePhoto, err := f.openPhoto()
			if err != nil {
				return err
			}
			defer closePhoto()
			p.Photo = photo

			if p.Empty() {
				return clierr.New(clierr.Validation, "Nothing to update. Pass at least one of --name, --species, --breed, --age or --photo.", nil)
			}

			var opts []client.RequestOption
			if photo != nil {
				t := newTransfer("Uploading photo", cmd.ErrOrStderr(), f.limitRate)
				defer t.finish()
				opts = append(opts, client.WithUploadProgress(t.wrap))
			}

			animal, err := a.animals.Update(cmd.Context(), client.ID(args[0]), p, opts...)
			if err != nil {
				return err
			}
			a.cacheAnimal(cmd.Context(), animal)
			cmd.Printf("Updated %s %s.\n", animal.Species.Emoji(), animal.Name)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func deleteAnimalsCmd(a *app) *cobra.Command {
	var threads int
	cmd := &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete one or more animals",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validation.ValidateThreadCount(threads); err != nil {
				return err
			}
			ids := make([]client.ID, len(args))
			for i, arg := range args {
				ids[i] = client.ID(arg)
			}

			results := pool.Run(cmd.Context(), ids, threads, func(ctx context.Context, id client.ID) error {
				return a.animals.Delete(ctx, id)
			})

			var deleted []string
			for _, r := range results {
				if r.Err != nil {
					cmd.PrintErrf("Failed to delete %s: %s\n", r.Item, toCLIError(r.Err).Message)
					continue
				}
				deleted = append(deleted, r.Item.String())
				cmd.Printf("Deleted %s.\n", r.Item)
			}
			if err := a.cache.Delete(cmd.Context(), deleted...); err != nil {
				log.Warn().Err(err).Msg("Failed to drop deleted animals from the cache")
			}

			errs := pool.Errors(results)
			if len(errs) == 0 {
				return nil
			}
			if len(errs) > 1 {
				cmd.PrintErrf("%d of %d deletions failed.\n", len(errs), len(results))
			}
			// The first failure decides the exit code.
			return errs[0]
		},
	}
	cmd.Flags().IntVarP(&threads, "threads", "t", 4, "Number of deletions to run at once (1-20)")
	return cmd
}

func photoCmd(a *app) *cobra.Command {
	var output, hashAlgo string
	var limitRate int
	cmd := &cobra.Command{
		Use:   "photo <id>",
		Short: "Download an animal's photo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var sum hash.Hash
			if hashAlgo != "" {
				if !hasher.IsValidHashAlgo(hashAlgo) {
					return &validation.FieldError{Field: "hash", Message: fmt.Sprintf("must be one of: %s", strings.Join(hasher.HashAlgorithms, ", "))}
				}
				sum, _ = hasher.New(hashAlgo)
			}

			ctx := cmd.Context()
			animal, err := a.animals.Get(ctx, client.ID(args[0]))
			if err != nil {
				return err
			}
			if animal.Photo == nil || *animal.Photo == "" {
				return clierr.New(clierr.NotFound, fmt.Sprintf("%s has no photo.", animal.Name), client.ErrNoPhoto)
			}
			if output == "" {
				output = defaultPhotoName(animal)
			}
			var previous string
			if sum != nil {
				previous = previousDigest(output, hashAlgo)
			}

			file, err := os.Create(output)
			if err != nil {
				return clierr.New(clierr.Internal, "Failed to create "+output, err)
			}
			var w io.Writer = file
			if sum != nil {
				w = io.MultiWriter(file, sum)
			}
			t := newTransfer("Downloading "+filepath.Base(output), cmd.ErrOrStderr(), limitRate)
			n, err := a.animals.DownloadPhoto(ctx, animal, w, client.WithDownloadProgress(t.wrap))
			t.finish()
			if closeErr := file.Close(); err == nil {
				err = closeErr
			}
			if err != nil {
				if rmErr := os.Remove(output); rmErr != nil {
					log.Warn().Err(rmErr).Str("path", output).Msg("Failed to remove partial photo")
				}
				return err
			}
			cmd.Printf("Saved %s (%s).\n", output, formatBytes(n))
			if sum != nil {
				digest := hasher.Sum(sum)
				cmd.Printf("%s: %s\n", strings.ToLower(hashAlgo), digest)
				switch {
				case previous == "":
				case previous == digest:
					cmd.Println("The photo is unchanged since the last download.")
				default:
					cmd.Printf("Replaced a different photo (%s: %s).\n", strings.ToLower(hashAlgo), previous)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "File to write the photo to (default: animal-<id> with the photo's extension)")
	cmd.Flags().IntVar(&limitRate, "limit-rate", 0, "Download speed limit in KiB/s (0 means no limit)")
	cmd.Flags().StringVar(&hashAlgo, "hash", "", "Print a checksum of the photo ("+strings.Join(hasher.HashAlgorithms, ", ")+")")
	return cmd
}

// previousDigest hashes the file a download is about to overwrite. It returns
// "" when there is no readable file at path.
func previousDigest(path, algo string) string {
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	digest, err := hasher.HashFile(path, algo)
	if err != nil {
		log.Debug().Err(err).Str("path", path).Msg("Failed to hash existing photo")
		return ""
	}
	return digest
}

func defaultPhotoName(animal *client.Animal) string {
	ext := ".jpg"
	if u, err := url.Parse(*animal.Photo); err == nil {
		if e := path.Ext(u.Path); e != "" {
			ext = e
		}
	}
	return "animal-" + animal.ID.String() + ext
}

func syncCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Refresh the local cache of your animals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			animals, err := a.animals.ListAll(ctx)
			if err != nil {
				return err
			}
			records := make([]db.AnimalRecord, 0, len(animals))
			for i := range animals {
				rec, err := recordFromAnimal(&animals[i])
				if err != nil {
					return clierr.New(clierr.Internal, "Failed to encode animal for the cache.", err)
				}
				records = append(records, rec)
			}
			if err := a.cache.ReplaceAll(ctx, records); err != nil {
				return clierr.New(clierr.Internal, "Failed to update the local cache.", err)
			}
			cmd.Printf("Cached %d animals.\n", len(records))
			return nil
		},
	}
}

func searchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "search <text>",
		Short: "Search the local cache by name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := a.cache.SearchByName(cmd.Context(), args[0])
			if err != nil {
				return clierr.New(clierr.Internal, "Failed to search the local cache.", err)
			}
			if len(records) == 0 {
				cmd.Printf("No cached animals match %q. Run `petcli animals sync` to refresh the cache.\n", args[0])
				return nil
			}
			renderAnimals(cmd.OutOrStdout(), animalsFromRecords(records))
			return nil
		},
	}
}

func thoughtsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "thoughts",
		Short: "Generate a new thought of the day for each animal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := a.auth.GenerateThoughts(cmd.Context())
			if err != nil {
				return err
			}
			if result.Message != "" {
				cmd.Println(result.Message)
			}
			cmd.Printf("%d thoughts generated. Use `petcli animals get <id>` to read them.\n", len(result.Details))
			return nil
		},
	}
}

func recordFromAnimal(animal *client.Animal) (db.AnimalRecord, error) {
	data, err := json.Marshal(animal)
	if err != nil {
		return db.AnimalRecord{}, err
	}
	return db.AnimalRecord{
		ID:      animal.ID.String(),
		Name:    animal.Name,
		Species: string(animal.Species),
		Data:    string(data),
	}, nil
}

// cacheAnimal refreshes one cached animal. Cache failures never fail the
// command.
func (a *app) cacheAnimal(ctx context.Context, animal *client.Animal) {
	rec, err := recordFromAnimal(animal)
	if err == nil {
		err = a.cache.Upsert(ctx, &rec)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Warn().Err(err).Str("id", animal.ID.String()).Msg("Failed to cache animal")
	}
}
