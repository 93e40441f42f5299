package classification

import (
	"context"
	"fmt"

	"github.com/Vladymirovich/MemeBot/internal/domain"
)

// Classifier decides one classification flag for a coin that passed every gate.
type Classifier interface {
	Classify(ctx context.Context, c *domain.Coin) (bool, error)
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(ctx context.Context, c *domain.Coin) (bool, error)

// Classify implements Classifier.
func (f ClassifierFunc) Classify(ctx context.Context, c *domain.Coin) (bool, error) {
	return f(ctx, c)
}

// Never is the placeholder classifier. It always answers false.
var Never Classifier = ClassifierFunc(func(context.Context, *domain.Coin) (bool, error) {
	return false, nil
})

// Classifiers holds one slot per flag. Nil slots use Never.
type Classifiers struct {
	RugPull   Classifier
	Pump      Classifier
	Tier1     Classifier
	CEXListed Classifier
}

// Compute runs every slot. Either all four flags are returned or an error.
func (cs Classifiers) Compute(ctx context.Context, c *domain.Coin) (domain.Classification, error) {
	var out domain.Classification
	slots := []struct {
		name string
		cl   Classifier
		dst  *bool
	}{
		{"rug_pull", cs.RugPull, &out.RugPull},
		{"pump", cs.Pump, &out.Pump},
		{"tier1", cs.Tier1, &out.Tier1},
		{"cex_listed", cs.CEXListed, &out.CEXListed},
	}

	for _, s := range slots {
		cl := s.cl
		if cl == nil {
			cl = Never
		}
		v, err := cl.Classify(ctx, c)
		if err != nil {
			return domain.Classification{}, fmt.Errorf("classify %s: %w", s.name, err)
		}
		*s.dst = v
	}
	return out, nil
}
