package main

import "sugarcube-l10n/internal/cli"

func main() {
	cli.Execute()
}
