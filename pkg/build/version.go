// SPDX-FileCopyrightText: 2026 k0s authors
// SPDX-License-Identifier: Apache-2.0

package build

// Version gets overridden at build time using -X github.com/k0sproject/diskwatch/pkg/build.Version=$VERSION
var Version = "dev"

// Commit gets overridden at build time using -X github.com/k0sproject/diskwatch/pkg/build.Commit=$COMMIT
var Commit string
