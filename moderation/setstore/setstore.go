// Named term-set storage, used for curated lexicons (slur lists, spam
// phrases) consumed by the fast classification path.
package setstore

import (
	"context"
)

type SetStore interface {
	InSet(ctx context.Context, name, val string) (bool, error)
	AddToSet(ctx context.Context, name string, vals []string) error
}
