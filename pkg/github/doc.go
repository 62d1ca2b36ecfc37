// Package github reads the access state of an organization's repositories.
// It wraps the GitHub REST and GraphQL APIs behind APIClient, collects
// paginated resources, maps App installations to repositories and assembles
// one RepositoryRecord per repository.
package github
