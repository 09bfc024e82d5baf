// Package firmware models sparse firmware images and prepares them for the bootloader.
//
// An Image maps byte addresses to bytes in one or more segments. Build redirects the
// image reset vector into the resident bootloader and produces the 120-byte
// configuration block that tells the bootloader the device identity and where the
// application resumes:
//
//	id, err := firmware.ParseIdentity("1234")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	bundle, err := firmware.Build(img, id, firmware.DefaultLayout())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("application entry: 0x%06X\n", bundle.OriginalEntry())
//
// Reads of unmapped addresses fail with *UnmappedError.
package firmware
