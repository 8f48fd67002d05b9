// Package flavor resolves flavor selectors into the ordered list of image
// variants a pipeline run processes.
//
// A [Catalog] describes one builder variant. The workspace catalog knows
// every flavor and accepts the "all" selector; the derivative catalog only
// knows flavors that layer on top of a previously built workspace image.
// Catalogs also own image naming, so every stage of a run derives the same
// local image name for a flavor.
//
// Example usage:
//
//	cat := flavor.Workspace("ml-workspace")
//	flavors, err := cat.Resolve("all")
//	if err != nil {
//	    return err
//	}
//	for _, f := range flavors {
//	    fmt.Println(cat.ImageName(f))
//	}
package flavor
