// Package files discovers spreadsheets on disk. It lets the command line
// tool accept directories wherever it accepts workbook paths.
//
//	discovery := files.NewDiscovery("")
//	paths, err := discovery.Expand([]string{"exports/", "north.xlsx"})
package files
