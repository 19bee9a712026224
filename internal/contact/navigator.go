package contact

// Navigator changes the visible route. The web layer answers with a
// redirect and the CLI prints the target.
type Navigator interface {
	NavigateTo(path string)
}

// NavigatorFunc adapts a function to the Navigator interface.
type NavigatorFunc func(path string)

// NavigateTo calls f(path).
func (f NavigatorFunc) NavigateTo(path string) {
	f(path)
}

// discardNavigator ignores every request.
type discardNavigator struct{}

func (discardNavigator) NavigateTo(string) {}
