package reconstruction

import (
	"fmt"
	"iter"

	"mrdrecon/internal/models"
)

// Tag wraps acquisitions and floating-point images into outbound records.
// Any other item ends the sequence with ErrUnsupportedRecordType.
func Tag(items iter.Seq2[models.StreamItem, error]) iter.Seq2[models.Record, error] {
	return func(yield func(models.Record, error) bool) {
		for item, err := range items {
			if err != nil {
				yield(models.Record{}, err)
				return
			}

			rec, err := tagItem(item)
			if err != nil {
				yield(models.Record{}, err)
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

func tagItem(item models.StreamItem) (models.Record, error) {
	switch v := item.(type) {
	case *models.Acquisition:
		if v != nil {
			return models.AcquisitionRecord(v), nil
		}
	case *models.Image[float32]:
		if v != nil {
			return models.ImageFloatRecord(v), nil
		}
	}
	return models.Record{}, fmt.Errorf("%w: %T", ErrUnsupportedRecordType, item)
}
