package propra

// PropraMagic opens every ProPra file
var PropraMagic = [10]byte{'P', 'r', 'o', 'P', 'r', 'a', 'W', 'S', '1', '9'}

// ProPra header layout
const (
	PropraHeaderSize       = 28
	propraWidthOffset      = 10
	propraDataLengthOffset = 16
	propraChecksumOffset   = 24
)

// TGA header layout and the fixed values of the supported subset
const (
	TGAHeaderSize            = 18
	tgaImageTypeUncompressed = 2
	tgaImageTypeRLE          = 10
	tgaDescriptorTopLeft     = 0x20
)

// BitsPerPixel is the only supported pixel depth
const BitsPerPixel = 24

const bytesPerPixel = BitsPerPixel / 8
