package board

// Effects receives the side effects a component asks its surface to
// perform. The web UI turns them into confetti and redirects, the CLI into
// printed lines.
type Effects interface {
	// Celebrate fires the celebratory effect for reason ("wish_created" or "wish_claimed").
	Celebrate(reason string)
	// Navigate moves the user to path.
	Navigate(path string)
}

// NopEffects ignores every effect.
type NopEffects struct{}

func (NopEffects) Celebrate(string) {}
func (NopEffects) Navigate(string)  {}

// EffectFuncs adapts plain functions to Effects. Nil funcs are skipped.
type EffectFuncs struct {
	OnCelebrate func(reason string)
	OnNavigate  func(path string)
}

func (f EffectFuncs) Celebrate(reason string) {
	if f.OnCelebrate != nil {
		f.OnCelebrate(reason)
	}
}

func (f EffectFuncs) Navigate(path string) {
	if f.OnNavigate != nil {
		f.OnNavigate(path)
	}
}

func effectsOrNop(e Effects) Effects {
	if e == nil {
		return NopEffects{}
	}
	return e
}
