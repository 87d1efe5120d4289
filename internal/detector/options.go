package detector

// Options configures one scoring call.
type Options struct {
	// Rand supplies the jitter draw. Nil means a fresh independent source
	// per call.
	Rand RandomSource

	// Deterministic forces zero jitter, overriding Rand. Intended for
	// reproducible runs and tests.
	Deterministic bool
}

// DefaultOptions returns options for a normal production scoring call.
func DefaultOptions() Options {
	return Options{}
}

// WithRandomSource sets an explicit random source.
func (o Options) WithRandomSource(rng RandomSource) Options {
	o.Rand = rng
	return o
}

// WithDeterministic disables jitter entirely.
func (o Options) WithDeterministic() Options {
	o.Deterministic = true
	return o
}

func (o Options) randomSource() RandomSource {
	if o.Deterministic {
		return zeroJitterSource{}
	}
	if o.Rand != nil {
		return o.Rand
	}
	return NewRandomSource()
}
