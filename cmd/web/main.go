package main

import "stillpoint_backend/internal/app"

func main() {
	app.Run()
}
