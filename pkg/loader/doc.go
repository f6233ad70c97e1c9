// Package loader reads the YAML documents that feed a resolution run:
// inventories (hosts, groups, their variables), standalone scope variable
// files, schema declarations, and command-line override assignments.
//
// The loader owns file formats and structural validation of the authored
// documents; it hands the registry already-parsed generic values and the
// engine an assembled schema tree. Precedence, merging, and value
// validation live elsewhere.
package loader
