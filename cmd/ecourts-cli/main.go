package main

import (
	"ecourts-backend/cmd/ecourts-cli/commands"
	"ecourts-backend/lib/osutil"
)

func main() {
	commands.ExecuteContext(osutil.SignalContext())
}
