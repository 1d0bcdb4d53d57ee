package command

var registry = map[string]Command{}

// Register wraps cmd with the given middlewares and adds it to the
// dispatch registry.
func Register(cmd Command, mws ...Middleware) {
	registry[cmd.Name()] = Apply(cmd, mws...)
}

func Get(name string) (Command, bool) {
	cmd, ok := registry[name]
	return cmd, ok
}

func All() []Command {
	list := make([]Command, 0, len(registry))
	for _, cmd := range registry {
		list = append(list, cmd)
	}
	return list
}
