package state

// Mode is the top-level input mode of a session.
type Mode int

const (
	ModeNormal Mode = iota
	ModeComposing
	ModeNamingOrLogin
)

func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeComposing:
		return "composing"
	case ModeNamingOrLogin:
		return "naming"
	default:
		return "unknown"
	}
}

// Step is the identity-entry sub-step active while in ModeNamingOrLogin.
type Step int

const (
	StepNone Step = iota
	StepName
	StepUsername
	StepPassword
)

func (s Step) String() string {
	switch s {
	case StepName:
		return "name"
	case StepUsername:
		return "username"
	case StepPassword:
		return "password"
	default:
		return ""
	}
}
