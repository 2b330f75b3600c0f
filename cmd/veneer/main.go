// Veneer - translucent overlay themes for the GNOME desktop
//
// Veneer layers a translucent overlay over the installed GTK and shell
// themes and keeps it in step with the wallpaper and colour scheme.
package main

import "github.com/jmylchreest/veneer/internal/cli"

func main() {
	cli.Execute()
}
