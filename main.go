package main

import "backfill/internal/cmd"

func main() {
	cmd.Execute()
}
