package jobs

import (
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// London is the wall clock documents are stamped in.
var London = mustLoad("Europe/London")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// Base carries what every job needs besides its data sources. Zero values
// fall back to a no-op logger, the real clock and random UUIDs.
type Base struct {
	Log   *zap.Logger
	Now   func() time.Time
	NewID func() string
}

func (b Base) log() *zap.Logger {
	if b.Log == nil {
		return zap.NewNop()
	}
	return b.Log
}

func (b Base) now() time.Time {
	if b.Now == nil {
		return time.Now()
	}
	return b.Now()
}

func (b Base) id() string {
	if b.NewID == nil {
		return uuid.NewString()
	}
	return b.NewID()
}

// stamp formats t in London time with layout.
func stamp(t time.Time, layout string) string {
	return t.In(London).Format(layout)
}
