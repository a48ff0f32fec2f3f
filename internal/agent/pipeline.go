package agent

import (
	"context"
	"fmt"
	"time"
)

// ContentFetcher retrieves best-effort articles for a URL list. It must
// guarantee a non-empty result; fallback reports whether the fixed
// placeholder set was substituted. Per-URL failures come back as error
// strings, never as a failed call.
type ContentFetcher interface {
	Fetch(ctx context.Context, urls []string) (articles []Article, errs []string, fallback bool)
}

// ConceptGenerator produces exactly five meme concepts from the fetched
// articles. Every failure mode is absorbed into the returned error strings
// together with a substituted fallback set.
type ConceptGenerator interface {
	Generate(ctx context.Context, articles []Article) (concepts []Concept, errs []string)
}

// ImageRenderer turns one concept into downloaded image bytes.
type ImageRenderer interface {
	Render(ctx context.Context, c Concept) (data []byte, mimeType string, err error)
}

// Uploader posts one rendered image to the upload endpoint. Failures are
// reported inside the result, never as an error.
type Uploader interface {
	Upload(ctx context.Context, img RenderedImage) UploadResult
}

// Archiver optionally keeps rendered images on local disk while a run is in
// flight. Successfully uploaded images are removed again.
type Archiver interface {
	Write(ctx context.Context, key string, data []byte) (string, error)
	Remove(key string) error
}

// Pipeline composes the fixed stage sequence Fetch -> Concepts ->
// Render/Upload -> Complete. Stages execute strictly one after another and
// share a single State per run.
type Pipeline struct {
	fetcher   ContentFetcher
	generator ConceptGenerator
	renderer  ImageRenderer
	uploader  Uploader
	archive   Archiver
	sink      Sink
}

// Option configures optional pipeline collaborators.
type Option func(*Pipeline)

// WithArchiver enables local archiving of rendered images.
func WithArchiver(a Archiver) Option {
	return func(p *Pipeline) { p.archive = a }
}

// NewPipeline wires the stage collaborators. A nil sink discards events.
func NewPipeline(fetcher ContentFetcher, generator ConceptGenerator, renderer ImageRenderer, uploader Uploader, sink Sink, opts ...Option) *Pipeline {
	if sink == nil {
		sink = NopSink
	}
	p := &Pipeline{
		fetcher:   fetcher,
		generator: generator,
		renderer:  renderer,
		uploader:  uploader,
		sink:      sink,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes the full four-stage sequence and returns the run summary.
func (p *Pipeline) Run(ctx context.Context, urls []string) Summary {
	st := NewState(urls)
	p.runFetch(ctx, st)
	p.runConcepts(ctx, st)
	p.runRender(ctx, st, st.Concepts)
	p.runComplete(st)
	return st.Summarize()
}

// RunConceptsOnly executes only the first two stages so a caller can review
// (and possibly edit) the concepts before committing to image generation.
func (p *Pipeline) RunConceptsOnly(ctx context.Context, urls []string) ([]Concept, Summary) {
	st := NewState(urls)
	p.runFetch(ctx, st)
	p.runConcepts(ctx, st)
	return append([]Concept(nil), st.Concepts...), st.Summarize()
}

// RunFromConcepts bypasses fetching and concept generation entirely, using
// the caller-supplied concepts verbatim.
func (p *Pipeline) RunFromConcepts(ctx context.Context, concepts []Concept) Summary {
	st := NewState(nil)
	p.sink.Emit(Event{Level: LevelInfo, Message: fmt.Sprintf("Using %d caller-supplied concepts", len(concepts)), Step: "Custom prompts"})
	st.Concepts = append([]Concept(nil), concepts...)
	st.Advance(StatusConceptsReady)
	p.runRender(ctx, st, st.Concepts)
	p.runComplete(st)
	return st.Summarize()
}

func (p *Pipeline) runFetch(ctx context.Context, st *State) {
	p.sink.Emit(Event{Level: LevelInfo, Message: "Fetching content from provided URLs", Step: "Fetching URLs"})

	articles, errs, fallback := p.fetcher.Fetch(ctx, st.InputURLs)
	for _, e := range errs {
		st.RecordError(e)
	}
	st.Articles = articles
	if fallback {
		p.sink.Emit(Event{Level: LevelWarning, Message: "No articles fetched, using fallback content"})
		st.Advance(StatusScrapedFallback)
		return
	}
	p.sink.Emit(Event{Level: LevelSuccess, Message: fmt.Sprintf("Fetched %d articles", len(articles))})
	st.Advance(StatusScraped)
}

func (p *Pipeline) runConcepts(ctx context.Context, st *State) {
	p.sink.Emit(Event{Level: LevelInfo, Message: "Generating meme concepts", Step: "Analyzing content"})

	concepts, errs := p.generator.Generate(ctx, st.Articles)
	for _, e := range errs {
		st.RecordError(e)
	}
	st.Concepts = concepts
	p.sink.Emit(Event{Level: LevelSuccess, Message: fmt.Sprintf("Generated %d meme concepts", len(concepts))})
	st.Advance(StatusConceptsReady)
}

// runRender processes each concept fully (render, download, archive, upload)
// before moving to the next one. A failed render contributes nothing to
// RenderedImages or UploadResults; a failed upload still leaves its
// RenderedImage in place, so every rendered image has exactly one upload
// result.
func (p *Pipeline) runRender(ctx context.Context, st *State, concepts []Concept) {
	p.sink.Emit(Event{Level: LevelInfo, Message: fmt.Sprintf("Generating %d images", len(concepts)), Step: "Generating images"})

	sourceURL := ""
	if len(st.Articles) > 0 {
		sourceURL = st.Articles[0].URL
	}

	for i, concept := range concepts {
		title := concept.Title
		if title == "" {
			title = fmt.Sprintf("Telugu Meme %d", i+1)
		}
		p.sink.Emit(Event{
			Level:   LevelInfo,
			Message: fmt.Sprintf("Generating image %d/%d: %s", i+1, len(concepts), title),
			Step:    fmt.Sprintf("Generating image %d/%d", i+1, len(concepts)),
		})

		data, mimeType, err := p.renderer.Render(ctx, concept)
		if err != nil {
			msg := fmt.Sprintf("Image %d generation failed: %v", i+1, err)
			st.RecordError(msg)
			p.sink.Emit(Event{Level: LevelError, Message: msg})
			continue
		}

		img := RenderedImage{
			Concept:    concept,
			ImageBytes: data,
			MimeType:   mimeType,
			Title:      title,
			SourceURL:  sourceURL,
		}
		st.RenderedImages = append(st.RenderedImages, img)

		archiveKey := p.archiveImage(ctx, data, i)

		p.sink.Emit(Event{
			Level:   LevelInfo,
			Message: fmt.Sprintf("Uploading image %d/%d", i+1, len(concepts)),
			Step:    fmt.Sprintf("Uploading image %d/%d", i+1, len(concepts)),
		})
		result := p.uploader.Upload(ctx, img)
		st.UploadResults = append(st.UploadResults, result)
		if result.Success {
			p.sink.Emit(Event{Level: LevelSuccess, Message: fmt.Sprintf("Uploaded %q (cid %s)", result.Title, result.CID)})
			if archiveKey != "" && p.archive != nil {
				if err := p.archive.Remove(archiveKey); err != nil {
					p.sink.Emit(Event{Level: LevelWarning, Message: fmt.Sprintf("Could not remove archived image %s: %v", archiveKey, err)})
				}
			}
		} else {
			st.RecordError(result.Error)
			p.sink.Emit(Event{Level: LevelError, Message: result.Error})
		}
	}

	st.Advance(StatusImagesReady)
}

func (p *Pipeline) archiveImage(ctx context.Context, data []byte, idx int) string {
	if p.archive == nil {
		return ""
	}
	key := fmt.Sprintf("meme_%d_%d.png", time.Now().Unix(), idx+1)
	stored, err := p.archive.Write(ctx, key, data)
	if err != nil {
		p.sink.Emit(Event{Level: LevelWarning, Message: fmt.Sprintf("Could not archive image: %v", err)})
		return ""
	}
	return stored
}

func (p *Pipeline) runComplete(st *State) {
	st.Advance(StatusCompleted)
	ok := 0
	for _, r := range st.UploadResults {
		if r.Success {
			ok++
		}
	}
	p.sink.Emit(Event{
		Level:   LevelSuccess,
		Message: fmt.Sprintf("Run complete: %d/%d memes uploaded", ok, len(st.UploadResults)),
		Step:    "Completed",
	})
}
