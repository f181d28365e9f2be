package cmd

import (
	"fmt"
	"io"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-fleet-admin/internal/config"
)

func printBanner(w io.Writer, appName string) {
	myFigure := figure.NewFigure(appName, "cybermedium", true)
	fmt.Fprintln(w, myFigure.String())
	fmt.Fprintf(w, "  version %s\n\n", config.Version)
}
