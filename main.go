package main

import "github.com/dt-pm-tools/jira-sync/cmd"

func main() {
	cmd.Execute()
}
