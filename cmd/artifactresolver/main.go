package main

import "ocm.software/open-component-model/artifactresolver/cli/cmd"

func main() {
	cmd.Execute()
}
