// Copyright (c) 2026, The LossTest Authors.
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are met:
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
// 3. Neither the name of the copyright holder nor the
//    names of its contributors may be used to endorse or promote products
//    derived from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

package packet

// Advertising-data element types used by the engine.
const (
	AdTypeFlags        byte = 0x01
	AdTypeShortName    byte = 0x08
	AdTypeCompleteName byte = 0x09
	AdTypeManufacturer byte = 0xFF
)

// AdFlagNoBrEdr is the advertising flags value for BR/EDR not supported.
const AdFlagNoBrEdr byte = 0x04

// AdElement is one length/type/value element of an advertising payload.
type AdElement struct {
	Type  byte
	Value []byte
}

// WalkAdElements calls visit for each well-formed element in data and
// stops early when visit returns false. A zero or truncated length ends
// the walk; bytes up to that point are still reported.
func WalkAdElements(data []byte, visit func(el AdElement) bool) {
	for len(data) >= 2 {
		length := int(data[0])
		if length == 0 || length+1 > len(data) {
			return
		}
		el := AdElement{Type: data[1], Value: data[2 : length+1]}
		if !visit(el) {
			return
		}
		data = data[length+1:]
	}
}

// FindManufacturerData returns the value of the first manufacturer-specific
// element of data, or nil.
func FindManufacturerData(data []byte) []byte {
	var found []byte
	WalkAdElements(data, func(el AdElement) bool {
		if el.Type == AdTypeManufacturer {
			found = el.Value
			return false
		}
		return true
	})
	return found
}

// AppendAdElement appends one advertising-data element to dst.
func AppendAdElement(dst []byte, typ byte, value []byte) []byte {
	dst = append(dst, byte(len(value)+1), typ)
	return append(dst, value...)
}
