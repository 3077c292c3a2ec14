package annotate

import (
	"context"
	"fmt"
)

// Personalizer addresses the user by name on every Nth turn answered from
// the knowledge store.
type Personalizer struct {
	Every int
}

func (p Personalizer) Annotate(_ context.Context, a Annotation) string {
	if p.Every <= 0 || a.UserName == "" || !a.Strategy.Stored() {
		return ""
	}
	if a.Turn%p.Every != 0 {
		return ""
	}
	return fmt.Sprintf("Hope that helps, %s.", a.UserName)
}

// LearningNotice tells the user a new answer has been remembered.
type LearningNotice struct{}

func (LearningNotice) Annotate(_ context.Context, a Annotation) string {
	if !a.Learned {
		return ""
	}
	return "I'll remember that."
}
