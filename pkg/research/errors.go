package research

import "errors"

var (
	// ErrProviderUnavailable means the generation provider could not be
	// reached or is misconfigured (missing API key, transport failure,
	// empty response). The run produced nothing.
	ErrProviderUnavailable = errors.New("generation provider unavailable")

	// ErrProviderResponseInvalid means the provider answered, but the
	// response did not satisfy the required output schema (malformed
	// JSON, missing field, smart message over the length bound).
	ErrProviderResponseInvalid = errors.New("generation provider returned invalid response")
)
