package cli

import (
	"errors"

	"github.com/MakeNowJust/heredoc"
)

var (
	ErrConfigNotFound = errors.New(heredoc.Doc(`
	Config file not found. Loading from defaults...

	Run "sift config init" to initialize a new configuration file
	Alternatively, make a "sift.yaml" file in the current directory
`))
)
