package domain

import (
	"context"
	"io"
)

// Embedder converts free text into a numeric vector representation.
// Implementations may require a preparation phase over the corpus.
type Embedder interface {
	Name() string
	Prepare(corpus []string) error
	Dimension() int
	Embed(text string) ([]float64, error)
}

// Chunker splits documents into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(document Document) ([]Chunk, error)
}

// VectorStore persists chunk vectors and supports similarity search.
// Search results are ordered by descending score; equal scores keep
// insertion order.
type VectorStore interface {
	Init(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, chunks []Chunk, vectors [][]float64) error
	Search(ctx context.Context, vector []float64, topK int) ([]SearchResult, error)
	Clear(ctx context.Context) error
}

// Summarizer produces a brief extractive summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}

// Completer is the generative-language backend: one prompt in, free text out.
// Nothing about the shape of the returned text is guaranteed.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// StationProvider is a third-party air-quality data source.
type StationProvider interface {
	Name() string
	FetchStation(ctx context.Context, id string) (Measurements, error)
	StationsNear(ctx context.Context, lat, lng, radiusKm float64) ([]NearbyStation, error)
	FetchAll(ctx context.Context) ([]StationRecord, error)
}

// TextExtractor turns an uploaded file into raw text.
type TextExtractor interface {
	Extract(ctx context.Context, name string, r io.ReaderAt, size int64) (string, error)
}

// SensorReadingSource produces the sensor readings shown alongside a project.
type SensorReadingSource interface {
	Readings(ctx context.Context, project *ProjectData) []SensorReading
}
