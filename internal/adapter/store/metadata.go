package store

import (
	"encoding/json"

	"github.com/veoreg/infinity-studio/internal/domain"
)

func unmarshalMetadata(raw []byte, meta *domain.JobMetadata) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, meta)
}
