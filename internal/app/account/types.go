package account

// Mode is which form the login page shows.
type Mode string

const (
	ModeLogin  Mode = "login"
	ModeSignup Mode = "signup"
)

// Field describes one input of the login form.
type Field struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Label       string `json:"label"`
	Placeholder string `json:"placeholder"`
	MinLength   int    `json:"minLength,omitempty"`
}

// LoginView is the rendered login page for one mode.
type LoginView struct {
	Mode         Mode    `json:"mode"`
	Title        string  `json:"title"`
	Subtitle     string  `json:"subtitle"`
	Fields       []Field `json:"fields"`
	SubmitLabel  string  `json:"submitLabel"`
	SwitchPrompt string  `json:"switchPrompt"`
	SwitchLabel  string  `json:"switchLabel"`
}

// RenderLogin returns the login or signup form. Unknown modes render the login form.
func RenderLogin(mode Mode) LoginView {
	email := Field{Name: "email", Type: "email", Label: "Email", Placeholder: "Enter your email"}
	password := Field{Name: "password", Type: "password", Label: "Password", Placeholder: "Enter your password", MinLength: MinPasswordLen}

	if mode == ModeSignup {
		return LoginView{
			Mode:     ModeSignup,
			Title:    "Create Account",
			Subtitle: "Join The Holiday family today",
			Fields: []Field{
				{Name: "fullName", Type: "text", Label: "Full Name", Placeholder: "Enter your full name"},
				email,
				password,
			},
			SubmitLabel:  "Create Account",
			SwitchPrompt: "Already have an account?",
			SwitchLabel:  "Sign In",
		}
	}
	return LoginView{
		Mode:         ModeLogin,
		Title:        "Member Login",
		Subtitle:     "Sign in to access your membership benefits",
		Fields:       []Field{email, password},
		SubmitLabel:  "Sign In",
		SwitchPrompt: "Don't have an account?",
		SwitchLabel:  "Sign Up",
	}
}
