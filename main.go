// The main package for the sitewatch executable.
package main

import "github.com/JakeFAU/sitewatch/cmd"

func main() {
	cmd.Execute()
}
