package protected

// Pair is a two-item tuple. It serializes as a positional sequence.
type Pair[A, B any] struct {
	First  A
	Second B
}

func (p *Pair[A, B]) SafeSerialize(s Sink) error {
	if err := s.BeginTuple(2); err != nil {
		return err
	}
	if err := EncodeField(s, &p.First); err != nil {
		return err
	}
	if err := EncodeField(s, &p.Second); err != nil {
		return err
	}
	return s.EndTuple()
}

func (p *Pair[A, B]) SafeDeserialize(src Source) error {
	if err := src.BeginTuple(2); err != nil {
		return err
	}
	if err := DecodeField(src, &p.First); err != nil {
		return err
	}
	if err := DecodeField(src, &p.Second); err != nil {
		return err
	}
	return src.EndTuple()
}

// Triple is a three-item tuple. It serializes as a positional sequence.
type Triple[A, B, C any] struct {
	First  A
	Second B
	Third  C
}

func (t *Triple[A, B, C]) SafeSerialize(s Sink) error {
	if err := s.BeginTuple(3); err != nil {
		return err
	}
	if err := EncodeField(s, &t.First); err != nil {
		return err
	}
	if err := EncodeField(s, &t.Second); err != nil {
		return err
	}
	if err := EncodeField(s, &t.Third); err != nil {
		return err
	}
	return s.EndTuple()
}

func (t *Triple[A, B, C]) SafeDeserialize(src Source) error {
	if err := src.BeginTuple(3); err != nil {
		return err
	}
	if err := DecodeField(src, &t.First); err != nil {
		return err
	}
	if err := DecodeField(src, &t.Second); err != nil {
		return err
	}
	if err := DecodeField(src, &t.Third); err != nil {
		return err
	}
	return src.EndTuple()
}
