package record

import "context"

// DefaultLocale is the locale id of the default language (English, United
// States).
const DefaultLocale = 1033

// Source is the data-source capability consumed by the template engine.
// Every call may block; implementations must honor ctx cancellation.
type Source interface {
	// Retrieve loads the given fields of the record identified by ref. With no
	// fields, all fields are loaded.
	Retrieve(ctx context.Context, ref Ref, fields ...string) (*Record, error)
	// RetrieveMultiple returns every record selected by q.
	RetrieveMultiple(ctx context.Context, q Query) ([]*Record, error)
	// Related returns the records of a one-to-many relation of ref, loading
	// the given fields of each.
	Related(ctx context.Context, ref Ref, relation string, fields ...string) ([]*Record, error)
	// Name returns the primary display name of a record.
	Name(ctx context.Context, ref Ref) (string, error)
	// URL returns a link to a record.
	URL(ctx context.Context, ref Ref) (string, error)
	// OptionLabel returns the label of a choice value in the given locale.
	OptionLabel(ctx context.Context, entity, field string, value, locale int) (string, error)
	// WhoAmI returns the reference of the calling user.
	WhoAmI(ctx context.Context) (Ref, error)
	// Language returns the preferred locale id of a user.
	Language(ctx context.Context, user Ref) (int, error)
	// Settings returns the generic configuration record.
	Settings(ctx context.Context) (*Record, error)
	// Call invokes a named action with an optional target and input
	// parameters, returning its outputs as a record.
	Call(ctx context.Context, action string, target *Ref, input map[string]any) (*Record, error)
}
