package agent

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

type stubFetcher struct {
	articles []Article
	errs     []string
	fallback bool
}

func (s *stubFetcher) Fetch(ctx context.Context, urls []string) ([]Article, []string, bool) {
	return s.articles, s.errs, s.fallback
}

type stubGenerator struct {
	concepts []Concept
	errs     []string
}

func (s *stubGenerator) Generate(ctx context.Context, articles []Article) ([]Concept, []string) {
	return s.concepts, s.errs
}

type stubRenderer struct {
	failIndexes map[int]bool
	calls       int
}

func (s *stubRenderer) Render(ctx context.Context, c Concept) ([]byte, string, error) {
	idx := s.calls
	s.calls++
	if s.failIndexes[idx] {
		return nil, "", errors.New("image model unavailable")
	}
	return []byte("png-bytes"), "image/png", nil
}

type stubUploader struct {
	failIndexes map[int]bool
	calls       int
}

func (s *stubUploader) Upload(ctx context.Context, img RenderedImage) UploadResult {
	idx := s.calls
	s.calls++
	if s.failIndexes[idx] {
		return UploadResult{Success: false, Title: img.Title, Error: "Upload failed with status 500"}
	}
	return UploadResult{Success: true, Title: img.Title, CID: "bafy123", ID: fmt.Sprintf("post-%d", idx)}
}

type recordingArchiver struct {
	written []string
	removed []string
}

func (a *recordingArchiver) Write(ctx context.Context, key string, data []byte) (string, error) {
	a.written = append(a.written, key)
	return key, nil
}

func (a *recordingArchiver) Remove(key string) error {
	a.removed = append(a.removed, key)
	return nil
}

func fiveConcepts() []Concept {
	out := make([]Concept, 5)
	for i := range out {
		out[i] = Concept{
			Title:             fmt.Sprintf("Concept %d", i+1),
			TextOverlay:       "overlay",
			VisualDescription: "a cartoon scene",
		}
	}
	return out
}

func TestRunHappyPath(t *testing.T) {
	p := NewPipeline(
		&stubFetcher{articles: []Article{{Title: "News", URL: "https://example.com/a"}}},
		&stubGenerator{concepts: fiveConcepts()},
		&stubRenderer{},
		&stubUploader{},
		nil,
	)

	sum := p.Run(context.Background(), []string{"https://example.com/a"})

	if sum.Status != StatusCompleted {
		t.Fatalf("status = %q, want %q", sum.Status, StatusCompleted)
	}
	if sum.ConceptsGenerated != 5 || sum.ImagesCreated != 5 {
		t.Fatalf("concepts/images = %d/%d, want 5/5", sum.ConceptsGenerated, sum.ImagesCreated)
	}
	if sum.SuccessfulUploads != 5 || sum.FailedUploads != 0 {
		t.Fatalf("uploads = %d ok / %d failed, want 5/0", sum.SuccessfulUploads, sum.FailedUploads)
	}
	if len(sum.Errors) != 0 {
		t.Fatalf("errors = %v, want none", sum.Errors)
	}
	if len(sum.UploadResults) != sum.ImagesCreated {
		t.Fatalf("upload results = %d for %d images", len(sum.UploadResults), sum.ImagesCreated)
	}
}

func TestRunSkipsFailedRenders(t *testing.T) {
	renderer := &stubRenderer{failIndexes: map[int]bool{1: true, 3: true}}
	uploader := &stubUploader{}
	p := NewPipeline(
		&stubFetcher{articles: []Article{{Title: "News"}}},
		&stubGenerator{concepts: fiveConcepts()},
		renderer,
		uploader,
		nil,
	)

	sum := p.Run(context.Background(), nil)

	if sum.Status != StatusCompleted {
		t.Fatalf("status = %q, want %q", sum.Status, StatusCompleted)
	}
	if sum.ImagesCreated != 3 {
		t.Fatalf("images created = %d, want 3", sum.ImagesCreated)
	}
	// A failed render contributes no upload attempt at all.
	if uploader.calls != 3 {
		t.Fatalf("upload calls = %d, want 3", uploader.calls)
	}
	if len(sum.UploadResults) != sum.ImagesCreated {
		t.Fatalf("upload results = %d for %d images", len(sum.UploadResults), sum.ImagesCreated)
	}
	if len(sum.Errors) != 2 {
		t.Fatalf("errors = %v, want 2 render failures", sum.Errors)
	}
	for i, want := range []string{"Image 2 generation failed", "Image 4 generation failed"} {
		if got := sum.Errors[i]; len(got) < len(want) || got[:len(want)] != want {
			t.Fatalf("errors[%d] = %q, want prefix %q", i, got, want)
		}
	}
}

func TestRunRecordsUploadFailures(t *testing.T) {
	p := NewPipeline(
		&stubFetcher{articles: []Article{{Title: "News"}}},
		&stubGenerator{concepts: fiveConcepts()},
		&stubRenderer{},
		&stubUploader{failIndexes: map[int]bool{0: true}},
		nil,
	)

	sum := p.Run(context.Background(), nil)

	if sum.ImagesCreated != 5 {
		t.Fatalf("images created = %d, want 5", sum.ImagesCreated)
	}
	if sum.SuccessfulUploads != 4 || sum.FailedUploads != 1 {
		t.Fatalf("uploads = %d ok / %d failed, want 4/1", sum.SuccessfulUploads, sum.FailedUploads)
	}
	if len(sum.Errors) != 1 || sum.Errors[0] != "Upload failed with status 500" {
		t.Fatalf("errors = %v, want the upload failure", sum.Errors)
	}
	// The failed upload's image still counts as rendered.
	if len(sum.UploadResults) != sum.ImagesCreated {
		t.Fatalf("upload results = %d for %d images", len(sum.UploadResults), sum.ImagesCreated)
	}
}

func TestRunFallbackFetchStillCompletes(t *testing.T) {
	p := NewPipeline(
		&stubFetcher{articles: []Article{{Title: "Placeholder"}}, errs: []string{"Failed to fetch https://x: HTTP 500"}, fallback: true},
		&stubGenerator{concepts: fiveConcepts()},
		&stubRenderer{},
		&stubUploader{},
		nil,
	)

	sum := p.Run(context.Background(), []string{"https://x"})

	if sum.Status != StatusCompleted {
		t.Fatalf("status = %q, want %q", sum.Status, StatusCompleted)
	}
	if sum.SuccessfulUploads != 5 {
		t.Fatalf("successful uploads = %d, want 5", sum.SuccessfulUploads)
	}
	if len(sum.Errors) != 1 {
		t.Fatalf("errors = %v, want the fetch failure carried through", sum.Errors)
	}
}

func TestRunConceptsOnlyStopsBeforeRendering(t *testing.T) {
	renderer := &stubRenderer{}
	uploader := &stubUploader{}
	p := NewPipeline(
		&stubFetcher{articles: []Article{{Title: "News"}}},
		&stubGenerator{concepts: fiveConcepts()},
		renderer,
		uploader,
		nil,
	)

	concepts, sum := p.RunConceptsOnly(context.Background(), nil)

	if len(concepts) != 5 {
		t.Fatalf("concepts = %d, want 5", len(concepts))
	}
	if renderer.calls != 0 || uploader.calls != 0 {
		t.Fatalf("render/upload calls = %d/%d, want 0/0", renderer.calls, uploader.calls)
	}
	if sum.Status != StatusConceptsReady {
		t.Fatalf("status = %q, want %q", sum.Status, StatusConceptsReady)
	}
}

func TestRunFromConceptsBypassesEarlierStages(t *testing.T) {
	fetcher := &stubFetcher{articles: []Article{{Title: "unused"}}}
	p := NewPipeline(
		fetcher,
		&stubGenerator{concepts: nil},
		&stubRenderer{},
		&stubUploader{},
		nil,
	)

	custom := []Concept{
		{Title: "Custom Meme 1", VisualDescription: "a very specific scene"},
		{Title: "Custom Meme 2", VisualDescription: "another scene"},
	}
	sum := p.RunFromConcepts(context.Background(), custom)

	if sum.Status != StatusCompleted {
		t.Fatalf("status = %q, want %q", sum.Status, StatusCompleted)
	}
	if sum.ConceptsGenerated != 2 || sum.ImagesCreated != 2 || sum.SuccessfulUploads != 2 {
		t.Fatalf("got %d concepts / %d images / %d uploads, want 2/2/2", sum.ConceptsGenerated, sum.ImagesCreated, sum.SuccessfulUploads)
	}
	if sum.ArticlesScraped != 0 {
		t.Fatalf("articles scraped = %d, want 0", sum.ArticlesScraped)
	}
}

func TestRunArchivesAndCleansUpUploadedImages(t *testing.T) {
	archive := &recordingArchiver{}
	p := NewPipeline(
		&stubFetcher{articles: []Article{{Title: "News"}}},
		&stubGenerator{concepts: fiveConcepts()},
		&stubRenderer{},
		&stubUploader{failIndexes: map[int]bool{2: true}},
		nil,
		WithArchiver(archive),
	)

	p.Run(context.Background(), nil)

	if len(archive.written) != 5 {
		t.Fatalf("archived = %d, want 5", len(archive.written))
	}
	// Only successfully uploaded images are removed; the failed one stays.
	if len(archive.removed) != 4 {
		t.Fatalf("removed = %d, want 4", len(archive.removed))
	}
}

func TestRunEmitsStepEvents(t *testing.T) {
	var steps []string
	sink := SinkFunc(func(e Event) {
		if e.Step != "" {
			steps = append(steps, e.Step)
		}
	})
	p := NewPipeline(
		&stubFetcher{articles: []Article{{Title: "News"}}},
		&stubGenerator{concepts: fiveConcepts()[:1]},
		&stubRenderer{},
		&stubUploader{},
		sink,
	)

	p.Run(context.Background(), nil)

	want := []string{"Fetching URLs", "Analyzing content", "Generating images", "Generating image 1/1", "Uploading image 1/1", "Completed"}
	if len(steps) != len(want) {
		t.Fatalf("steps = %v, want %v", steps, want)
	}
	for i := range want {
		if steps[i] != want[i] {
			t.Fatalf("steps[%d] = %q, want %q", i, steps[i], want[i])
		}
	}
}
