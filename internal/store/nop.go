package store

import (
	"time"

	"github.com/amishk599/jobscout/internal/model"
)

// NopStore is a no-op store used by the check command. It never marks
// listings as seen, so every match appears new on each run.
type NopStore struct{}

func NewNopStore() *NopStore { return &NopStore{} }

func (s *NopStore) HasSeen(string) (bool, error)     { return false, nil }
func (s *NopStore) MarkSeen(string, model.Job) error { return nil }
func (s *NopStore) Cleanup(time.Duration) error      { return nil }
func (s *NopStore) IsEmpty() (bool, error)           { return false, nil }

var _ model.JobStore = (*NopStore)(nil)
