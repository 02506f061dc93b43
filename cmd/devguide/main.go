// Command devguide ranks programming best-practice resources, language
// guides, topic categories and crawled articles against free-text queries.
package main

import (
	"os"

	"github.com/Adithya-Monish-Kumar-K/devguide-search/cmd/devguide/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
