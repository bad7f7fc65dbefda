package main

// General API documentation for swaggo. The served document lives in
// internal/httpapi/openapi.json (build with -tags=swagger).
//
// @title           litertlm API
// @version         1.0
// @description     HTTP API for serving LiteRT-LM models with owned engine and session lifetimes.
//
// @BasePath  /
//
// @schemes http
