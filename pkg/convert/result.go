package convert

import "time"

// Priority is the caller-declared conversion priority. It influences the
// strategy chosen before submission, never queue order.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// normalize maps the empty and unknown values to normal.
func (p Priority) normalize() Priority {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh:
		return p
	}
	return PriorityNormal
}

// ConvertOptions control a single Convert call.
type ConvertOptions struct {
	// SkipCache bypasses the cache lookup and store for this call. Dedup
	// and stats still apply.
	SkipCache bool

	// Priority selects the conversion strategy for large inputs.
	Priority Priority

	// OnProgress, if set, receives coarse progress in [0,1]. Only the
	// caller that initiates the conversion gets granular updates; callers
	// that join an in-flight conversion receive a single call with 1.0.
	OnProgress func(fraction float64)
}

// Metadata describes a converted document.
type Metadata struct {
	WordCount        int       `json:"word_count"`
	PageCount        int       `json:"page_count"`
	Title            string    `json:"title,omitempty"`
	Author           string    `json:"author,omitempty"`
	LastModified     time.Time `json:"last_modified"`
	ProcessingTimeMs int64     `json:"processing_time_ms"`
	IsLargeInput     bool      `json:"is_large_input"`
}

// Result is the outcome of a conversion. It is created once per unique
// input and shared by every caller that hits cache; treat it as immutable.
type Result struct {
	HTML        string   `json:"html"`
	Diagnostics []string `json:"diagnostics,omitempty"`
	Metadata    Metadata `json:"metadata"`
}

// WarmOptions control a WarmCache run.
type WarmOptions struct {
	// Priority applies to every warmed conversion.
	Priority Priority

	// BatchSize bounds concurrent warm conversions. Default 10.
	BatchSize int
}

// WarmReport summarizes a WarmCache run.
type WarmReport struct {
	Warmed int `json:"warmed"`
	Errors int `json:"errors"`
}

// ServiceStats is the analytics snapshot returned by Stats.
type ServiceStats struct {
	TotalProcessed          int64   `json:"total_processed"`
	CacheHitRate            float64 `json:"cache_hit_rate"`
	AverageProcessingTimeMs float64 `json:"average_processing_time_ms"`
	PopularEntryCount       int64   `json:"popular_entry_count"`
	EstimatedMemoryBytes    int64   `json:"estimated_memory_bytes"`
}
