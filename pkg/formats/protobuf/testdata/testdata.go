// Package testdata hand-builds a small Protobuf schema via descriptorpb and
// protodesc, standing in for a protoc-generated .pb.go file so
// pkg/formats/protobuf's tests can exercise a real protoreflect.MessageDescriptor
// (nested message, repeated scalar, repeated string, and an enum field)
// without requiring the protoc toolchain to be present at build time.
package testdata

import (
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
)

// PersonFile builds the shredtest.Person schema:
//
//	message Address { string street = 1; string city = 2; }
//	enum Status { UNKNOWN = 0; ACTIVE = 1; INACTIVE = 2; }
//	message Person {
//	  string name = 1;
//	  int32 age = 2;
//	  repeated string tags = 3;    // unpacked (string can never be packed)
//	  repeated int32 scores = 4;   // packed under proto3
//	  Address address = 5;
//	  Status status = 6;
//	}
func PersonFile() protoreflect.FileDescriptor {
	fdProto := &descriptorpb.FileDescriptorProto{
		Name:    proto.String("shredtest/person.proto"),
		Package: proto.String("shredtest"),
		Syntax:  proto.String("proto3"),
		MessageType: []*descriptorpb.DescriptorProto{
			{
				Name: proto.String("Address"),
				Field: []*descriptorpb.FieldDescriptorProto{
					scalarField("street", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING),
					scalarField("city", 2, descriptorpb.FieldDescriptorProto_TYPE_STRING),
				},
			},
			{
				Name: proto.String("Person"),
				Field: []*descriptorpb.FieldDescriptorProto{
					scalarField("name", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING),
					scalarField("age", 2, descriptorpb.FieldDescriptorProto_TYPE_INT32),
					repeatedField("tags", 3, descriptorpb.FieldDescriptorProto_TYPE_STRING),
					repeatedField("scores", 4, descriptorpb.FieldDescriptorProto_TYPE_INT32),
					messageField("address", 5, ".shredtest.Address"),
					enumField("status", 6, ".shredtest.Status"),
				},
			},
		},
		EnumType: []*descriptorpb.EnumDescriptorProto{
			{
				Name: proto.String("Status"),
				Value: []*descriptorpb.EnumValueDescriptorProto{
					{Name: proto.String("UNKNOWN"), Number: proto.Int32(0)},
					{Name: proto.String("ACTIVE"), Number: proto.Int32(1)},
					{Name: proto.String("INACTIVE"), Number: proto.Int32(2)},
				},
			},
		},
	}
	fd, err := protodesc.NewFile(fdProto, nil)
	if err != nil {
		panic(err)
	}
	return fd
}

// PersonDescriptor returns the Person message descriptor from PersonFile.
func PersonDescriptor() protoreflect.MessageDescriptor {
	return PersonFile().Messages().ByName("Person")
}

// AddressDescriptor returns the nested Address message descriptor.
func AddressDescriptor() protoreflect.MessageDescriptor {
	return PersonFile().Messages().ByName("Address")
}

// NewPerson allocates an empty, mutable Person message ready for
// field-by-name Set calls (dynamicpb.Message implements proto.Message, so
// it marshals with the ordinary proto.Marshal).
func NewPerson() *dynamicpb.Message {
	return dynamicpb.NewMessage(PersonDescriptor())
}

// NewAddress allocates an empty, mutable Address message.
func NewAddress() *dynamicpb.Message {
	return dynamicpb.NewMessage(AddressDescriptor())
}

func scalarField(name string, number int32, typ descriptorpb.FieldDescriptorProto_Type) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:     proto.String(name),
		Number:   proto.Int32(number),
		Label:    descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		Type:     typ.Enum(),
		JsonName: proto.String(name),
	}
}

func repeatedField(name string, number int32, typ descriptorpb.FieldDescriptorProto_Type) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:     proto.String(name),
		Number:   proto.Int32(number),
		Label:    descriptorpb.FieldDescriptorProto_LABEL_REPEATED.Enum(),
		Type:     typ.Enum(),
		JsonName: proto.String(name),
	}
}

func messageField(name string, number int32, typeName string) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:     proto.String(name),
		Number:   proto.Int32(number),
		Label:    descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		Type:     descriptorpb.FieldDescriptorProto_TYPE_MESSAGE.Enum(),
		TypeName: proto.String(typeName),
		JsonName: proto.String(name),
	}
}

func enumField(name string, number int32, typeName string) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:     proto.String(name),
		Number:   proto.Int32(number),
		Label:    descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		Type:     descriptorpb.FieldDescriptorProto_TYPE_ENUM.Enum(),
		TypeName: proto.String(typeName),
		JsonName: proto.String(name),
	}
}
