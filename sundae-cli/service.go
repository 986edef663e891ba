package sundaecli

import "fmt"

type Service struct {
	Name    string
	Subpath string
	Version string
	Schema  string
}

func NewService(name string) Service {
	return Service{
		Name:    name,
		Subpath: "",
		Version: CommitHash(),
	}
}

func NewSubpathService(name string) Service {
	return Service{
		Name:    name,
		Subpath: name,
		Version: CommitHash(),
	}
}

// ResourceName returns the conventional name of a shared chat resource (table,
// stream) for the given environment, e.g. "prod-chat--messages".
func ResourceName(env, name string) string {
	return fmt.Sprintf("%v-chat--%v", env, name)
}
