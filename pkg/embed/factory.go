package embed

import "sync"

// DefaultEmbedFactory implements EmbedFactory
type DefaultEmbedFactory struct{}

// NewEmbedFactory creates a new embed factory
func NewEmbedFactory() *DefaultEmbedFactory {
	return &DefaultEmbedFactory{}
}

func (f *DefaultEmbedFactory) CreateAudioEmbedBuilder() AudioEmbedBuilder {
	return NewAudioEmbedBuilder()
}

func (f *DefaultEmbedFactory) CreateBasicEmbedBuilder() EmbedBuilder {
	return NewAudioEmbedBuilder()
}

var (
	globalFactory EmbedFactory
	factoryOnce   sync.Once
)

// GetGlobalEmbedFactory returns the shared embed factory instance
func GetGlobalEmbedFactory() EmbedFactory {
	factoryOnce.Do(func() {
		globalFactory = NewEmbedFactory()
	})
	return globalFactory
}

// GetGlobalAudioEmbedBuilder is a shortcut for the common case in command
// handlers.
func GetGlobalAudioEmbedBuilder() AudioEmbedBuilder {
	return GetGlobalEmbedFactory().CreateAudioEmbedBuilder()
}
