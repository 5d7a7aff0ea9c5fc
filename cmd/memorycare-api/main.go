package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/memorycare/memorycare-backend/careservice"
)

func main() {
	// .env is optional; real environment variables win over file values.
	_ = godotenv.Load()

	if err := careservice.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
