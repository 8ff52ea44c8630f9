package segtrack

import (
	"fmt"
	"io"

	"github.com/openseg/go-segtrack/tracker"
)

// Query the session configuration and registry state in text/human
// readable format
func (s *Session) Query(w io.Writer) {

	fmt.Fprintf(w, "Matching Mode: %s, Frame Size: %dx%d\n",
		s.params.Mode.String(), s.params.Width, s.params.Height)

	if s.params.MaxObjects > 0 {
		fmt.Fprintf(w, "Max Objects: %d\n", s.params.MaxObjects)
	} else {
		fmt.Fprintf(w, "Max Objects: unlimited\n")
	}

	if s.params.Mode == tracker.ModeEngulf {
		fmt.Fprintf(w, "Engulf Threshold: %.2f\n", s.params.EngulfThreshold)
	}

	fmt.Fprintf(w, "Frames Stepped: %d\n", s.frames)

	fmt.Fprintf(w, "Objects: %d active, %d live, %d issued\n",
		s.registry.ActiveCount(), s.registry.LiveCount(),
		s.registry.HistoricalCount())

	objs := s.registry.Objects()

	if len(objs) == 0 {
		return
	}

	fmt.Fprintf(w, "Active objects:\n")

	for _, obj := range objs {
		fmt.Fprintf(w, "  %s\n", obj.String())
	}
}
