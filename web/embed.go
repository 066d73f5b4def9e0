package web

import "embed"

// Templates embeds the HTML sources rendered to PDF by the report package.
//
//go:embed templates/reports/*.html
var Templates embed.FS

// Static embeds the status page and its assets. The React client is built
// and deployed separately; the API only serves this minimal landing.
//
//go:embed static/*
var Static embed.FS
