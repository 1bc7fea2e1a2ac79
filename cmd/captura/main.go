package main

import "github.com/obraops/captura/cmd/captura/cmd"

func main() {
	cmd.Execute()
}
