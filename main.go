package main

import "github.com/yourusername/facturas/cmd"

func main() {
	cmd.Execute()
}
