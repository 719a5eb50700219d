package main

import (
	"embed"

	cmd "github.com/redhat-openshift-ecosystem/junit-reporter/cmd/junit-reporter"
	"github.com/redhat-openshift-ecosystem/junit-reporter/internal/assets"
)

//go:embed data/templates
var vfs embed.FS

func main() {
	assets.UpdateData(vfs)
	cmd.Execute()
}
