package storekit

import (
	"github.com/smallstep/pkcs7"
)

// pkcs7Handler unpacks certs-only PKCS#7/P7B bundles, the degenerate
// SignedData form used to ship certificate chains. Named "PKCS7" blocks and
// unnamed binary blobs are both probed; signed data carrying no certificates
// is not a match. Each certificate is yielded on its own Load call.
var pkcs7Handler = &fileHandler{
	name:       "PKCS7",
	repeatable: true,
	next:       queueNext,
	exhausted:  queueExhausted,
	destroy:    queueDestroy,
	tryDecode: func(l *Loader, blob *candidateBlob) (*decodeResult, error) {
		if blob.name != "" && blob.name != "PKCS7" && blob.name != "PKCS #7 SIGNED DATA" {
			return nil, nil
		}

		p7, err := pkcs7.Parse(blob.der)
		if err != nil || len(p7.Certificates) == 0 {
			return nil, nil
		}

		queue := make([]*Info, 0, len(p7.Certificates))
		for _, cert := range p7.Certificates {
			queue = append(queue, &Info{Kind: KindCertificate, Certificate: cert})
		}

		return &decodeResult{
			info:  queue[0],
			state: &objectQueue{items: queue[1:]},
		}, nil
	},
}
