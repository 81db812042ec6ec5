package main

import "github.com/terraconstructs/blogdesk/cmd/blogctl/cmd"

func main() {
	cmd.Execute()
}
