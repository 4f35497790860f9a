// Linkup -- wireless bring-up and one-shot secure session client.
package main

import "github.com/CodingInGreen/linkup/cmd/linkup/commands"

func main() {
	commands.Execute()
}
