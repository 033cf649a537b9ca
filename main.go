package main

import "github.com/sinh-x/ai-usage-log/cmd"

func main() {
	cmd.Execute()
}
