package domain

// Category is the relevance bucket assigned to a raw item.
type Category string

const (
	CategoryWork     Category = "work"
	CategoryPersonal Category = "personal"
)

// ClassificationLabel is the result of classifying a RawItem. It is attached
// to the item in memory only and is never persisted next to unsanitized
// content.
type ClassificationLabel struct {
	Category   Category
	Confidence float64
}

// Admits reports whether the label lets an item into the pipeline: only
// "work" at or above the threshold passes. Everything else is dropped.
func (l ClassificationLabel) Admits(threshold float64) bool {
	return l.Category == CategoryWork && l.Confidence >= threshold
}
