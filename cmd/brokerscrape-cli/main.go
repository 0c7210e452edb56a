package main

import (
	"brokerscrape/cmd/brokerscrape-cli/commands"
	"brokerscrape/pkg/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
