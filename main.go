// The main package for the companycrawler executable.
package main

import (
	"github.com/JakeFAU/company-list-crawler/cmd"
)

func main() {
	cmd.Execute()
}
