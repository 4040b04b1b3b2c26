package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"

	"github.com/rs/zerolog/log"
)

const animalsEndpoint = "/api/animals/"

// ErrNoPhoto is returned when downloading the photo of an animal without one.
var ErrNoPhoto = errors.New("animal has no photo")

// AnimalService wraps the animal endpoints.
type AnimalService struct {
	api *Client
}

func NewAnimalService(api *Client) *AnimalService {
	return &AnimalService{api: api}
}

func animalEndpoint(id ID) string {
	return animalsEndpoint + url.PathEscape(string(id)) + "/"
}

// List fetches one page of the user's animals. Pages start at 1.
func (s *AnimalService) List(ctx context.Context, page int) (*Page[Animal], error) {
	endpoint := animalsEndpoint
	if page > 1 {
		endpoint += "?page=" + strconv.Itoa(page)
	}
	return s.fetchPage(ctx, endpoint)
}

// ListAll follows the pagination links and returns every animal.
func (s *AnimalService) ListAll(ctx context.Context) ([]Animal, error) {
	all := make([]Animal, 0, 16)
	next := animalsEndpoint
	seen := map[string]bool{}
	for next != "" {
		if seen[next] {
			log.Warn().Str("endpoint", next).Msg("Pagination loop detected, stopping")
			break
		}
		seen[next] = true

		page, err := s.fetchPage(ctx, next)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Results...)

		if page.Next == nil || *page.Next == "" {
			break
		}
		next, err = s.api.endpointFor(*page.Next)
		if err != nil {
			return nil, fmt.Errorf("failed to follow pagination link: %w", err)
		}
	}
	log.Info().Int("count", len(all)).Msg("Fetched all animals")
	return all, nil
}

// fetchPage decodes either the paginated envelope or a bare array, which the
// API returns when pagination is disabled.
func (s *AnimalService) fetchPage(ctx context.Context, endpoint string) (*Page[Animal], error) {
	var raw json.RawMessage
	if err := s.api.Get(ctx, endpoint, &raw); err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var animals []Animal
		if err := json.Unmarshal(trimmed, &animals); err != nil {
			return nil, fmt.Errorf("failed to parse animal list: %w", err)
		}
		return &Page[Animal]{Count: len(animals), Results: animals}, nil
	}
	var page Page[Animal]
	if len(trimmed) > 0 {
		if err := json.Unmarshal(trimmed, &page); err != nil {
			return nil, fmt.Errorf("failed to parse animal page: %w", err)
		}
	}
	return &page, nil
}

// Get fetches one animal.
func (s *AnimalService) Get(ctx context.Context, id ID) (*Animal, error) {
	var a Animal
	if err := s.api.Get(ctx, animalEndpoint(id), &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// Create adds an animal. The request is multipart when in.Photo is set.
func (s *AnimalService) Create(ctx context.Context, in AnimalInput, opts ...RequestOption) (*Animal, error) {
	if err := ValidateAnimal(in); err != nil {
		return nil, err
	}

	var body any = in
	if in.Photo != nil {
		form := NewForm().Set("name", in.Name).Set("species", string(in.Species))
		if in.Breed != "" {
			form.Set("breed", in.Breed)
		}
		if in.Age != nil {
			form.Set("age", strconv.Itoa(*in.Age))
		}
		body = form.AttachFile(in.Photo)
	}

	var a Animal
	if err := s.api.Post(ctx, animalsEndpoint, body, &a, opts...); err != nil {
		return nil, err
	}
	log.Info().Str("id", a.ID.String()).Str("name", a.Name).Msg("Animal created")
	return &a, nil
}

// Update changes the fields set in p. The request is multipart when p.Photo
// is set.
func (s *AnimalService) Update(ctx context.Context, id ID, p AnimalPatch, opts ...RequestOption) (*Animal, error) {
	if p.Empty() {
		return nil, fmt.Errorf("nothing to update")
	}
	if err := ValidateAnimalPatch(p); err != nil {
		return nil, err
	}

	var body any = p
	if p.Photo != nil {
		form := NewForm()
		if p.Name != nil {
			form.Set("name", *p.Name)
		}
		if p.Species != nil {
			form.Set("species", string(*p.Species))
		}
		if p.Breed != nil {
			form.Set("breed", *p.Breed)
		}
		if p.Age != nil {
			form.Set("age", strconv.Itoa(*p.Age))
		}
		body = form.AttachFile(p.Photo)
	}

	var a Animal
	if err := s.api.Patch(ctx, animalEndpoint(id), body, &a, opts...); err != nil {
		return nil, err
	}
	return &a, nil
}

// Delete removes an animal.
func (s *AnimalService) Delete(ctx context.Context, id ID) error {
	if err := s.api.Delete(ctx, animalEndpoint(id), nil); err != nil {
		return err
	}
	log.Info().Str("id", id.String()).Msg("Animal deleted")
	return nil
}

// DownloadPhoto streams the animal's photo into w.
func (s *AnimalService) DownloadPhoto(ctx context.Context, a *Animal, w io.Writer, opts ...RequestOption) (int64, error) {
	if a == nil || a.Photo == nil || *a.Photo == "" {
		return 0, ErrNoPhoto
	}
	return s.api.Download(ctx, *a.Photo, w, opts...)
}
