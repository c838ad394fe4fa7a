// Command animehub is the offline companion to the API server: it groups
// titles into series, queries and maintains the local catalog, runs
// ingestion and manages the configuration file.
package main
