package main

import (
	"log"

	"github.com/jchau/jobmatch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
