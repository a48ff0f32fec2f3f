package agent

// Status tracks how far a pipeline run has advanced. It only ever moves
// forward; reaching StatusCompleted does not imply success, only that every
// stage ran to the end of its (possibly fully-fallback) logic.
type Status string

const (
	StatusStarting        Status = "starting"
	StatusScraped         Status = "scraped"
	StatusScrapedFallback Status = "scraped_fallback"
	StatusConceptsReady   Status = "concepts_ready"
	StatusImagesReady     Status = "images_ready"
	StatusCompleted       Status = "completed"
)

var statusRank = map[Status]int{
	StatusStarting:        0,
	StatusScraped:         1,
	StatusScrapedFallback: 1,
	StatusConceptsReady:   2,
	StatusImagesReady:     3,
	StatusCompleted:       4,
}

// Article is a fetched (or placeholder) source article. Snippet is capped at
// 500 characters by the fetcher.
type Article struct {
	Title   string `json:"title" yaml:"title"`
	Snippet string `json:"snippet" yaml:"snippet"`
	URL     string `json:"url" yaml:"url"`
}

// Concept is one structured meme idea, produced by the text model or its
// fallback fixture set.
type Concept struct {
	Title             string `json:"title" yaml:"title"`
	TextOverlay       string `json:"text_overlay" yaml:"text_overlay"`
	VisualDescription string `json:"visual_description" yaml:"visual_description"`
	Context           string `json:"context" yaml:"context"`
}

// RenderedImage is the downloaded binary output of the image model for one
// concept.
type RenderedImage struct {
	Concept    Concept `json:"concept"`
	ImageBytes []byte  `json:"-"`
	MimeType   string  `json:"mime_type"`
	Title      string  `json:"title"`
	SourceURL  string  `json:"source_url,omitempty"`
}

// UploadResult records the per-image outcome of posting a rendered image to
// the upload endpoint.
type UploadResult struct {
	Success bool   `json:"success"`
	Title   string `json:"title"`
	CID     string `json:"cid,omitempty"`
	ID      string `json:"id,omitempty"`
	Error   string `json:"error,omitempty"`
}

// State is the single pipeline record threaded through every stage of one
// run. It is owned exclusively by that run; no locking is needed because no
// stage runs concurrently with another.
type State struct {
	InputURLs      []string
	Articles       []Article
	Concepts       []Concept
	RenderedImages []RenderedImage
	UploadResults  []UploadResult
	Errors         []string
	Status         Status
}

// NewState creates the state for one run.
func NewState(urls []string) *State {
	return &State{
		InputURLs: append([]string(nil), urls...),
		Status:    StatusStarting,
	}
}

// Advance moves Status forward. Attempts to move backwards are ignored so no
// stage can revert the progress of an earlier one.
func (s *State) Advance(next Status) {
	if statusRank[next] >= statusRank[s.Status] {
		s.Status = next
	}
}

// RecordError appends a human-readable error string. Errors accumulate across
// stages and are never cleared during a run.
func (s *State) RecordError(msg string) {
	if msg == "" {
		return
	}
	s.Errors = append(s.Errors, msg)
}

// Summary is the stable output contract of a run. Callers should rely on it
// rather than on intermediate State fields.
type Summary struct {
	Status            Status         `json:"status"`
	ArticlesScraped   int            `json:"articles_scraped"`
	ConceptsGenerated int            `json:"concepts_generated"`
	ImagesCreated     int            `json:"images_created"`
	SuccessfulUploads int            `json:"successful_uploads"`
	FailedUploads     int            `json:"failed_uploads"`
	Errors            []string       `json:"errors"`
	UploadResults     []UploadResult `json:"upload_results"`
}

// Summarize extracts the run summary from the final state.
func (s *State) Summarize() Summary {
	sum := Summary{
		Status:            s.Status,
		ArticlesScraped:   len(s.Articles),
		ConceptsGenerated: len(s.Concepts),
		ImagesCreated:     len(s.RenderedImages),
		Errors:            append([]string(nil), s.Errors...),
		UploadResults:     append([]UploadResult(nil), s.UploadResults...),
	}
	for _, r := range s.UploadResults {
		if r.Success {
			sum.SuccessfulUploads++
		} else {
			sum.FailedUploads++
		}
	}
	return sum
}
