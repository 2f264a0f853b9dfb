package navigation

// View paths the member area can navigate to.
const (
	PathHome      = "/"
	PathLogin     = "/member-login"
	PathDashboard = "/member-dashboard"
)

// Navigator triggers a view transition on the client.
type Navigator interface {
	Redirect(path string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path string)

func (f NavigatorFunc) Redirect(path string) { f(path) }
