package registry

// Option configures a Registry.
type Option func(*Registry)

// WithManagedChannels seeds channel to bot assignments.
func WithManagedChannels(channels map[string]string) Option {
	return func(r *Registry) {
		for ch, bot := range channels {
			if bot != "" {
				r.bots[fold(ch)] = bot
			}
		}
	}
}
