package shortlink

// DefaultSlugWidth is the minimum width of generated slugs.
const DefaultSlugWidth = 5

// SlugGenerator derives a slug from a reserved counter value.
// Derive must be a pure function of the counter value.
type SlugGenerator interface {
	Derive(n uint64) Slug
}

// Base62Generator derives slugs by base62-encoding the counter value,
// left-padded with '0' to at least MinWidth characters.
type Base62Generator struct {
	MinWidth int
}

// NewBase62Generator creates a generator with the given minimum width.
func NewBase62Generator(minWidth int) Base62Generator {
	return Base62Generator{MinWidth: minWidth}
}

func (g Base62Generator) Derive(n uint64) Slug {
	s := EncodeUint64(n)

	for len(s) < g.MinWidth {
		s = "0" + s
	}

	return Slug(s)
}
