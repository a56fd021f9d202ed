package main

import "github.com/aceteam-ai/skillcraft/cmd"

func main() {
	cmd.Execute()
}
