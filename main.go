package main

import (
	"datachat/cmd"
	_ "datachat/docs" // Swagger docs
)

func main() {
	cmd.Execute()
}
