package main

// General API documentation for swaggo. Run `make swagger-gen` to generate docs.
//
// @title           gptlocal API
// @version         1.0
// @description     HTTP API for local model resolution and text generation.
//
// @contact.name   gptlocal maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
