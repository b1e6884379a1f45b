package plan

// AnonymousVoices is the fixed voice subset offered to unauthenticated
// callers.
var AnonymousVoices = []string{"Puck", "Kore", "en-US-Journey-F"}

// Access is the outcome of an entitlement check. When All is true the plan
// may use every voice and Voices is nil.
type Access struct {
	Allowed bool
	All     bool
	Voices  []string
}

// CheckVoiceAccess decides whether a plan permits the given voice. A nil
// plan means an anonymous caller, who gets the small fixed subset. No side
// effects.
func CheckVoiceAccess(p *Plan, voiceName string) Access {
	if p == nil {
		return Access{Allowed: contains(AnonymousVoices, voiceName), Voices: AnonymousVoices}
	}
	if p.Limits.Voices.All {
		return Access{Allowed: true, All: true}
	}
	names := p.Limits.Voices.Names
	return Access{Allowed: contains(names, voiceName), Voices: names}
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
